// @title           Rentguard API
// @version         1.0
// @description     Time-limited group membership: entitlements, expiry sweeps and admin notices.
// @BasePath        /api/v1
// @securityDefinitions.apikey AdminID
// @in header
// @name X-Admin-ID
// @securityDefinitions.apikey WebhookSecret
// @in header
// @name Authorization
package main

import "os"

func main() {
	os.Exit(execute())
}
