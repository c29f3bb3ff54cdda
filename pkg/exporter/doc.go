// Package exporter keeps the published snapshot current.
//
// Run performs one full refresh, then runs two loops until its context is
// cancelled:
//
//   - every refresh interval, packagesets and then the upload queues;
//   - every build status interval, the failed builds of every series, a
//     bounded number of series at a time.
//
// A failed refresh is logged and counted and leaves the previous snapshot
// published. The exporter is ready once every task has succeeded once.
package exporter
