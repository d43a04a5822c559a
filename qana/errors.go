// Package qana implements the analysis passes that rewrite a parsed query
// IR to attach spatial-region restrictors and secondary-index restrictors.
package qana

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrMissingMetadata is raised when a metadata lookup fails for an
	// unknown db or table.
	ErrMissingMetadata = errors.NewKind("qana: unknown %s")

	// ErrRestrictorNoChunkedTable is raised when one or more area
	// restrictors are present but no chunked table appears in the FROM
	// list.
	ErrRestrictorNoChunkedTable = errors.NewKind("qana: spatial restrictor without a partitioned table in FROM")
)
