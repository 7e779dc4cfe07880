package artifact

// Package artifact owns the scratch directory of fetched media. Each artifact
// is a file named after its token; it is reserved before the download starts,
// claimed by exactly one reader, and removed when that reader closes. Sweep
// removes whatever was never served.
