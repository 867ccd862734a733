// Package database provides SQLite connectivity for the potentiostat service.
//
// This package manages:
//   - Connection setup with WAL mode, busy timeout and foreign keys
//   - Schema migrations read from an fs.FS (see the migrations package)
//   - Units of work: WithTx stores the transaction in the context and
//     Conn hands it to every repository call made with that context
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a default,
// and every .up.sql has a matching .down.sql.
package database
