// Package query evaluates document-store queries in process: filters,
// projections, sorting, update operators and aggregation pipelines over
// core.Document values. It backs the memory and filesystem adapters.
package query
