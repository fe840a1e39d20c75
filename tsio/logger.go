package tsio

import "github.com/asticode/go-astikit"

// logger receives warnings raised while framing and parsing packets:
// desync events, truncated adaptation fields, and the like. Defaults to
// a no-op logger, same pattern the teacher package uses for its own
// warnings.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger overrides the package-level logger.
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }
