// Package api is the HTTP surface of the back office.
//
// Billing webhooks arrive on POST /webhooks/billing and are acknowledged with
// 200 whenever redelivery could not change the outcome. POST /internal/sweep
// runs the daily pass and requires the X-Sweep-Secret header. Everything under
// /admin requires a bearer admin token; X-Admin-Actor names the administrator
// recorded in the audit trail.
//
// Errors are JSON objects of the form {"error": "...", "code": "..."}.
package api
