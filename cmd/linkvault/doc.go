// Package main hosts the linkvault service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server saves text, code and link items through content.Service. Link items are
//     stored first and then two jobs are handed to the broker in the background, one for the preview screenshot
//     and one for tag generation. Enqueue failures are logged and counted, never returned to the client.
//   - Queue: internal/queue brokers carry enrichment.Job messages on the "screenshot-generation" and
//     "tag-generation" queues. The memory broker serves single-process deployments; Pub/Sub and Redis brokers let
//     the API and workers scale separately.
//   - Workers: internal/worker.Runner consumes both queues. The screenshot worker renders the page in the shared
//     headless browser (or takes the og:image for Instagram) and uploads it to GCS, S3 or memory. The tag worker
//     runs the parser chain, falls back to rendering the page, extracts keywords and records the platform.
//   - Browser: one Chrome instance is launched lazily and shared by every job through browser.Manager; it is
//     relaunched after a disconnect and closed on shutdown.
//   - Persistence: content items live in Postgres (text[] tags, full-text search) or in memory when no DSN is set.
//
// Operational notes:
//   - Configure via LINKVAULT_* environment variables or a YAML file passed with --config.
//   - linkvault serve runs the API (and, with --workers or the memory queue, the consumers in-process).
//   - linkvault worker runs only the consumers. Redis jobs a crashed worker left in flight are requeued at startup.
//   - Both commands drain on SIGINT/SIGTERM.
package main
