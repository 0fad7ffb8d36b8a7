// Package listing implements persistence for workshop listings.
//
// The FileRepository keeps every listing in a single YAML document together
// with the next id to assign, and exposes a Repository interface that the
// gateway service depends on.
package listing
