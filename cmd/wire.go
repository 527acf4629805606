//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/mashiro/microblog"
	"github.com/mashiro/microblog/sqlite"
)

func createServer() (*microblog.Server, error) {
	wire.Build(
		microblog.ParseConfig,
		microblog.NewMailer,
		microblog.NewLogger,
		microblog.NewProcessor,
		microblog.NewHandler,
		microblog.NewServer,
		sqlite.NewSQLite,
		sqlite.NewSession,
		sqlite.NewAccountDB,
		sqlite.NewFollowDB,
		sqlite.NewPostDB,
	)
	return nil, nil
}
