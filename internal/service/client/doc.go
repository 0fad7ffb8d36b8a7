// Package client wires the publisher: it loads settings, connects to the
// workshop gateway and runs one session that publishes the addon folder.
package client
