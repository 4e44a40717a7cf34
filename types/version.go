package types

// Version is the canonical keycut version.
// The journal record schema and the edit-completed event share it.
const Version = "0.3.0"
