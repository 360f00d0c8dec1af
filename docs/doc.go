// Package docs provides generated OpenAPI documentation.
//
// copyforge API
//
//	@title			copyforge API
//	@version		1.0
//	@description	Product research, competitor analysis and marketing copy generation backed by LLMs.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/copyforge/copyforge
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -d ./,../cmd/copyforge,../internal/server/endpoints -g doc.go -o ./swagger --parseDependency --parseInternal
