// Package database opens the hub's SQLite file and manages its schema.
//
// Migrations are embedded by the migrations package and applied in version
// order at startup. They are additive: new columns are nullable or carry a
// default, so a rolled back binary still reads the schema.
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
