// cmd/bookcourier/main.go
package main

import (
	"os"

	"bookcourier/internal/app"
)

func main() {
	os.Exit(app.Main(app.RoleAll))
}
