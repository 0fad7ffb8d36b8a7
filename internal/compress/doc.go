// Package compress turns a package stream into a compressed stream that can be
// hashed, rewound and uploaded.
//
// Compression is pull-based: bytes are encoded only as far as readers ask for
// them, and the encoded output is kept so the stream can be rewound to the
// start. Seeking relative to the end, or asking for Len, encodes the rest.
package compress
