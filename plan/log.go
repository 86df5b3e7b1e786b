package plan

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var pkgLogger atomic.Pointer[zap.SugaredLogger]

// SetLogger installs the logger used by the package. A nil logger restores
// the default no-op logger.
func SetLogger(l *zap.SugaredLogger) {
	pkgLogger.Store(l)
}

func logger() *zap.SugaredLogger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop().Sugar()
}
