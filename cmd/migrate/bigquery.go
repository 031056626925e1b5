package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

type bigqueryDriver struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

func newBigQueryDriver(ctx context.Context, projectID, datasetID string) (*bigqueryDriver, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client: %w", err)
	}
	return &bigqueryDriver{client: client, projectID: projectID, datasetID: datasetID}, nil
}

func (d *bigqueryDriver) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", d.projectID, d.datasetID)
}

// Ensure creates the dataset and the schema_migrations table if needed.
func (d *bigqueryDriver) Ensure(ctx context.Context) error {
	ds := d.client.Dataset(d.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil {
			return fmt.Errorf("creating dataset %s: %w", d.datasetID, err)
		}
	}

	return d.run(ctx, d.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, d.table())))
}

func (d *bigqueryDriver) Applied(ctx context.Context) (map[int]AppliedMigration, error) {
	q := d.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, d.table()))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]AppliedMigration)
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied[int(row.Version)] = AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		}
	}
	return applied, nil
}

// Apply runs the migration, then records it. BigQuery has no transactional
// DDL, so a failure between the two leaves the migration unrecorded.
func (d *bigqueryDriver) Apply(ctx context.Context, m Migration, appliedBy string) error {
	if err := d.run(ctx, d.client.Query(m.SQL)); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	q := d.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, d.table()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	if err := d.run(ctx, q); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func (d *bigqueryDriver) run(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (d *bigqueryDriver) Close() error {
	return d.client.Close()
}
