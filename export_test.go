package nexus

// Internal pieces exposed for testing.

var TestStripCodeFence = stripCodeFence

var TestEnsureDistinctQuery = ensureDistinctQuery
