// Package staging maintains the scratch root where intake stages uploads and
// the pipeline keeps per-job working files.
package staging
