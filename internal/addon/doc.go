// Package addon loads addon manifests and builds GMAD packages.
//
// A manifest is the addon.json file at the root of an addon folder. It may
// contain comments and trailing commas. Build walks the folder and writes a
// version 3 GMAD archive holding every file except the manifest and the
// entries matched by its Ignore patterns.
package addon
