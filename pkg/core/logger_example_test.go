package core_test

import (
	"os"

	"github.com/fluxorio/lineserve/pkg/core"
)

func ExampleNewLogger() {
	logger, err := core.NewLogger(core.LoggerOptions{
		Level:  "debug",
		Format: "logfmt",
		Output: os.Stdout,
	})
	if err != nil {
		panic(err)
	}

	logger.Debugf("listening on %s", "127.0.0.1:7878")
}

func ExampleLogger_With() {
	logger, _ := core.NewLogger(core.LoggerOptions{Format: "json"})

	connLogger := logger.With("conn_id", core.NewConnID(), "remote", "127.0.0.1:50122")
	connLogger.Info("connection accepted")
	connLogger.With("status", 200).Info("response written")
}
