package params

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".surveyd")
}()

// StateDBName is the bbolt file under DatadirRoot holding calibration and
// session checkpoints.
const StateDBName = "surveyd.db"

var (
	INFLUXDB_URL    = os.Getenv("INFLUXDB_URL")
	INFLUXDB_TOKEN  = os.Getenv("INFLUXDB_TOKEN")
	INFLUXDB_ORG    = os.Getenv("INFLUXDB_ORG")
	INFLUXDB_BUCKET = os.Getenv("INFLUXDB_BUCKET")
)
