package handler

// DefaultSessionNameForTest exposes defaultSessionName to external test packages.
const DefaultSessionNameForTest = defaultSessionName
