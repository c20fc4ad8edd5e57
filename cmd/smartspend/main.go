// Command smartspend runs the expense tracking API and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/ArionMiles/smartspend/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(logger, args)
	case "train":
		err = runTrain(logger, args)
	case "receipt":
		err = runReceipt(logger, args)
	case "import":
		err = runImport(logger, args)
	case "seed":
		err = runSeed(logger, args)
	case "authorize":
		err = runAuthorize(logger, args)
	case "status":
		err = runStatus(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("SmartSpend")
	fmt.Println("\nUsage:")
	fmt.Println("  smartspend <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve     Run the HTTP API (default)")
	fmt.Println("  train     Train the category classifier from a labelled CSV")
	fmt.Println("  receipt   Process one receipt image and print the result")
	fmt.Println("  import    Import a CSV or Excel expense file")
	fmt.Println("  seed      Insert generated demo expenses")
	fmt.Println("  authorize Obtain a Google user token for an OAuth client secret")
	fmt.Println("  status    Check configuration and backend connectivity")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nConfiguration is read from the environment (SMARTSPEND_*, POSTGRES_*, REDIS_*, GSHEETS_*, GEMINI_API_KEY).")
	fmt.Println("Run 'smartspend <command> -h' for more information on a command.")
}
