// Package main hosts the audit pipeline service entrypoint.
//
// Architecture overview:
//   - Trigger intake: internal/api.Server accepts Pub/Sub push deliveries on POST /,
//     base64-decodes the message payload, and hands it to the orchestrator. Health
//     endpoints (/healthz, /readyz) and Prometheus /metrics ride on the same chi router.
//   - Orchestration: internal/job runs each trigger to completion: resolve the source
//     (the literal "all" fans out one message per configured source instead), check the
//     debounce window, fetch the PageSpeed report, persist report/log objects, write an
//     NDJSON scratch object, and submit a BigQuery load job. Errors are logged and
//     swallowed at the orchestrator boundary; Pub/Sub deliveries are acked regardless.
//   - Debounce: internal/debounce keeps one small JSON state blob per (source, strategy)
//     in GCS. The check is a read-then-write without locks; near-simultaneous triggers
//     for the same pair may both pass, which is accepted.
//   - Persistence: internal/storage abstracts blob access (GCS in production, memory in
//     tests); internal/warehouse appends category rows to the reports table via GCS load
//     jobs keyed by a UUID7 job id; internal/history optionally records run outcomes in
//     Postgres.
//   - Configuration & plumbing: Viper populates config from env/files and validation is
//     fatal at startup; zap provides structured logging; the process reacts to SIGTERM
//     for graceful drain, suitable for Cloud Run.
//
// Quick checklist:
//   - Configure: AUDIT_PROJECT_ID, AUDIT_GCS_BUCKET_NAME, AUDIT_BIGQUERY_DATASET_ID,
//     AUDIT_PUBSUB_TOPIC_ID, AUDIT_DEBOUNCE_MIN_INTERVAL_MS, plus the sources list in a
//     config file.
//   - Run locally: go run ./cmd/auditpipe -config config.yaml (or rely on env overrides).
package main
