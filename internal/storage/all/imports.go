// Package all registers every storage backend with the factory. The CLI
// imports it blank; library code keeps depending on storage.Repository only.
package all

import (
	_ "github.com/Rohit-Borah/NHP-API/internal/storage/postgres"
	_ "github.com/Rohit-Borah/NHP-API/internal/storage/sqlite"
)
