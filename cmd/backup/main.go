package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"lingofocus/internal/bootstrap"
	"lingofocus/internal/config"
	"lingofocus/internal/logging"
	"lingofocus/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: BACKUP_DIR/lingofocus_backup_YYYYMMDD_HHMMSS.json)")
	exportEmail := exportCmd.String("email", "", "Also email the backup to this address via SES")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Reset existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(cfg.Debug, true)
	ctx := context.Background()

	st, closeStore, err := bootstrap.OpenStore(ctx, cfg, false, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	backupService := service.NewBackupService(st, cfg.BackupDir, logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, cfg, backupService, *exportOutput, *exportEmail, logger)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, *importInput, *importClear, logger)

	case "reset":
		resetCmd.Parse(os.Args[2:])
		handleReset(ctx, backupService, logger)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, cfg *config.Config, backupService *service.BackupService, outputPath, emailTo string, logger zerolog.Logger) {
	path, err := backupService.Export(ctx, outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("export failed")
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("export failed")
	}
	logger.Info().Str("file", path).Str("size", fmt.Sprintf("%.2f KB", float64(fileInfo.Size())/1024)).Msg("export complete")

	if emailTo == "" {
		return
	}
	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up email")
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read backup")
	}
	if err := email.SendBackup(ctx, emailTo, fileInfo.Name(), blob); err != nil {
		logger.Fatal().Err(err).Msg("failed to email backup")
	}
	logger.Info().Str("to", emailTo).Msg("backup emailed")
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool, logger zerolog.Logger) {
	// Check if file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		logger.Fatal().Str("file", inputPath).Msg("input file does not exist")
	}

	if clearData {
		if !confirm(os.Stdin, "WARNING: This will delete all collections and review counts. Type 'yes' to confirm: ") {
			logger.Info().Msg("import cancelled")
			return
		}
		if err := backupService.Reset(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to clear data")
		}
	}

	logger.Info().Str("file", inputPath).Msg("importing backup")
	if err := backupService.Import(ctx, inputPath); err != nil {
		logger.Fatal().Err(err).Msg("import failed")
	}
	logger.Info().Msg("import complete")
}

func handleReset(ctx context.Context, backupService *service.BackupService, logger zerolog.Logger) {
	if !confirm(os.Stdin, "WARNING: This will delete all collections and review counts. Type 'yes' to confirm: ") {
		logger.Info().Msg("reset cancelled")
		return
	}
	if err := backupService.Reset(ctx); err != nil {
		logger.Fatal().Err(err).Msg("reset failed")
	}
	logger.Info().Msg("reset complete")
}

// confirm prints prompt and reports whether the user typed "yes"
func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func printUsage() {
	fmt.Println("LingoFocus Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export study data to a JSON snapshot")
	fmt.Println("  backup import [options]    Restore study data from a JSON snapshot")
	fmt.Println("  backup reset               Delete all collections and review counts")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: BACKUP_DIR/lingofocus_backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println("  -email <addr>     Also send the snapshot by email (needs SES_FROM_EMAIL)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Reset existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./lingofocus.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  BACKUP_DIR       Directory for exported snapshots (default: ./backups)")
}
