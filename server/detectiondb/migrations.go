package detectiondb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE detection_run(
			id TEXT PRIMARY KEY,
			time INT NOT NULL,
			image_width INT NOT NULL,
			image_height INT NOT NULL,
			total_weight_g INT NOT NULL,
			num_unknown INT NOT NULL,
			detections TEXT
		);

		CREATE INDEX idx_detection_run_time ON detection_run(time);
		`))

	return migs
}
