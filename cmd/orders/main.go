// cmd/orders/main.go
package main

import (
	"os"

	"bookcourier/internal/app"
)

// The orders service resolves books through CATALOG_SERVICE_URL.
func main() {
	os.Exit(app.Main(app.RoleOrders))
}
