// Package autoload initializes the global logger from the environment when
// blank-imported.
package autoload

import (
	configx "github.com/frontdeskai/frontdesk/pkg/config"
	logx "github.com/frontdeskai/frontdesk/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
