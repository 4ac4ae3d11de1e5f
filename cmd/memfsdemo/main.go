package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/memfs/cmd"
	"github.com/mutagen-io/memfs/pkg/memfs"
)

func rootMain(command *cobra.Command, arguments []string) error {
	if rootConfiguration.version {
		fmt.Println(version)
		return nil
	}

	var opts []memfs.Option
	if rootConfiguration.blockSize > 0 {
		opts = append(opts, memfs.WithBlockSize(rootConfiguration.blockSize))
	}

	var cfg memfs.Configuration
	var err error
	switch rootConfiguration.flavor {
	case "unix":
		cfg, err = memfs.Unix(opts...)
	case "osx":
		cfg, err = memfs.OSX(opts...)
	case "windows":
		cfg, err = memfs.Windows(opts...)
	default:
		command.Help()
		return nil
	}
	if err != nil {
		return err
	}

	fs, err := memfs.New(cfg)
	if err != nil {
		return err
	}
	defer fs.Close()

	if rootConfiguration.script != "" {
		return runScript(fs, rootConfiguration.script)
	}
	return runInteractive(fs)
}

var rootCommand = &cobra.Command{
	Use:   "memfsdemo",
	Short: "memfsdemo drives an in-memory, hierarchical filesystem from the command line",
	Run:   cmd.Mainify(rootMain),
}

var rootConfiguration struct {
	help      bool
	version   bool
	flavor    string
	blockSize int
	script    string
}

func init() {
	flags := rootCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")
	flags.StringVar(&rootConfiguration.flavor, "flavor", "unix", "Path flavor to use (unix, osx, windows)")
	flags.IntVar(&rootConfiguration.blockSize, "block-size", 0, "HeapDisk block size in bytes (0 uses the default)")
	flags.StringVar(&rootConfiguration.script, "script", "", "Run commands from a file instead of reading standard input")

	rootCommand.AddCommand(versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
