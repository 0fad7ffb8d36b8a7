// Package publish builds an addon and publishes it to the workshop.
//
// A run deletes stale cloud files, loads addon.json, packages the folder,
// uploads the icon and the compressed package, then creates a listing (and
// records its id in addon.json) or updates the existing one. Named failures
// abort the run; anything else is returned as a *FaultError.
package publish
