package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mutagen-io/memfs/cmd"
	"github.com/mutagen-io/memfs/pkg/memfs"
	"github.com/mutagen-io/memfs/pkg/memfs/watch"
)

// runScript executes each line of the file at path as a command, stopping
// at the first error.
func runScript(fs *memfs.FileSystem, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return runLines(fs, file, false)
}

// runInteractive reads commands from standard input until "exit", "quit",
// or end of input, printing a prompt and reporting each error without
// aborting the session (the way a shell keeps going after a failed
// command).
func runInteractive(fs *memfs.FileSystem) error {
	fmt.Println("memfsdemo interactive session. Type \"help\" for a command list, \"exit\" to quit.")
	return runLines(fs, os.Stdin, true)
}

func runLines(fs *memfs.FileSystem, input io.Reader, interactive bool) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(input)
	for {
		if interactive {
			fmt.Print("memfs> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		command := fields[0]
		args := fields[1:]

		if command == "exit" || command == "quit" {
			return nil
		}

		if err := dispatch(ctx, fs, command, args); err != nil {
			cmd.Error(err)
			if !interactive {
				return err
			}
		}
	}
	return scanner.Err()
}

// dispatch executes a single parsed command against fs.
func dispatch(ctx context.Context, fs *memfs.FileSystem, command string, args []string) error {
	switch command {
	case "help":
		printHelp()
		return nil
	case "mkdir":
		if len(args) != 1 {
			return usageError("mkdir PATH")
		}
		return fs.CreateDirectory(args[0])
	case "touch":
		if len(args) != 1 {
			return usageError("touch PATH")
		}
		return fs.CreateFile(args[0])
	case "write":
		if len(args) < 2 {
			return usageError("write PATH TEXT...")
		}
		return fs.WriteFile(ctx, args[0], []byte(strings.Join(args[1:], " ")))
	case "cat":
		if len(args) != 1 {
			return usageError("cat PATH")
		}
		data, err := fs.ReadFile(ctx, args[0])
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if len(data) == 0 || data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	case "ls":
		if len(args) != 1 {
			return usageError("ls PATH")
		}
		return listDirectory(fs, args[0])
	case "rm":
		if len(args) != 1 {
			return usageError("rm PATH")
		}
		return fs.Delete(args[0])
	case "mv":
		if len(args) != 2 {
			return usageError("mv SOURCE DESTINATION")
		}
		return fs.Move(args[0], args[1])
	case "ln":
		if len(args) != 2 {
			return usageError("ln EXISTING NEW")
		}
		return fs.CreateLink(args[1], args[0])
	case "symlink":
		if len(args) != 2 {
			return usageError("symlink TARGET LINKPATH")
		}
		return fs.CreateSymbolicLink(args[1], args[0])
	case "stat":
		if len(args) != 1 {
			return usageError("stat PATH")
		}
		return statPath(fs, args[0])
	case "watch":
		if len(args) != 1 {
			return usageError("watch PATH")
		}
		return watchPath(ctx, fs, args[0])
	default:
		return usageError(command + " (unrecognized; try \"help\")")
	}
}

func usageError(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func printHelp() {
	fmt.Println(strings.TrimSpace(`
Commands:
  mkdir PATH                 create an empty directory
  touch PATH                 create an empty file
  write PATH TEXT...         create or truncate a file and write TEXT to it
  cat PATH                   print a file's contents
  ls PATH                    list a directory's entries
  rm PATH                    remove an empty directory or a file
  mv SOURCE DESTINATION      move/rename an entry
  ln EXISTING NEW            create a hard link to an existing regular file
  symlink TARGET LINKPATH    create a symbolic link
  stat PATH                  print an entry's basic attributes
  watch PATH                 register a watch and block until one batch of events arrives
  exit, quit                 end the session
`))
}

func listDirectory(fs *memfs.FileSystem, path string) error {
	names, err := fs.List(path)
	if err != nil {
		return err
	}
	for _, name := range names {
		size, err := fs.GetAttribute(joinPath(path, name), "basic:size")
		if err != nil {
			fmt.Println(name)
			continue
		}
		fmt.Printf("%s\t%s\n", name, humanize.Bytes(uint64(size.(int64))))
	}
	return nil
}

func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

func statPath(fs *memfs.FileSystem, path string) error {
	attrs, err := fs.ReadAttributes(path, "basic:*")
	if err != nil {
		return err
	}
	fmt.Printf("size:              %s\n", humanize.Bytes(uint64(attrs["size"].(int64))))
	fmt.Printf("isDirectory:       %v\n", attrs["isDirectory"])
	fmt.Printf("isRegularFile:     %v\n", attrs["isRegularFile"])
	fmt.Printf("isSymbolicLink:    %v\n", attrs["isSymbolicLink"])
	fmt.Printf("lastModifiedTime:  %s\n", attrs["lastModifiedTime"])
	return nil
}

func watchPath(ctx context.Context, fs *memfs.FileSystem, path string) error {
	key, err := fs.RegisterWatch(path, watch.Create, watch.Delete, watch.Modify)
	if err != nil {
		return err
	}
	color.Yellow("watching %s, waiting for a change...", path)
	ready, err := fs.Take(ctx)
	if err != nil {
		return err
	}
	if ready != key {
		return nil
	}
	for _, event := range key.PollEvents() {
		fmt.Printf("%s %s\n", event.Kind, event.Name)
	}
	return nil
}
