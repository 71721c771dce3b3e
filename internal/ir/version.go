package ir

// ToolVersion is the replaycheck release, recorded with stored sessions.
const ToolVersion = "0.1.0"
