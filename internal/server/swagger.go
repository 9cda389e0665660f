package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Veridict API
// @version 1.0
// @description Interactive documentation for the Veridict fake-news detection API.
// @contact.name Veridict Maintainers
// @contact.url https://github.com/dberest/veridict
// @BasePath /
