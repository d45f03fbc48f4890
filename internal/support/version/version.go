// Package version хранит сведения о сборке. Значения подменяются через -ldflags:
//
//	go build -ldflags "-X el-estate-bot/internal/support/version.Version=1.2.3"
package version

var (
	// Name — имя приложения.
	Name = "el-estate-bot"
	// Version — версия сборки.
	Version = "dev"
	// Commit — короткий хеш коммита.
	Commit = "none"
)
