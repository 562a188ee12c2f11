package main

import (
	"fmt"

	"go.uber.org/automaxprocs/maxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/installer/cmd/installer/app"
	"github.com/autopeer-io/installer/pkg/log"
)

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	app.NewApp().Run(genericapiserver.SetupSignalContext())
}
