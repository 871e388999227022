// Package archive uploads CSV exports of the audit log to S3 or an
// S3-compatible store, under date-partitioned keys.
package archive
