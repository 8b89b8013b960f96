// skinplay is a CLI utility for inspecting and playing skinned glTF models.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args, os.Stdout)
	case "bones", "ls":
		err = cmdBones(args, os.Stdout)
	case "play":
		err = cmdPlay(args, os.Stdout)
	case "dump":
		err = cmdDump(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `skinplay - skeletal animation inspector

Usage:
  skinplay <command> [options] [model.glb]

Commands:
  info  <model>    Show node, bone, mesh and clip counts plus load warnings
  bones <model>    List the node hierarchy with bone ids and animated flags
  play  <model>    Play the clip on N instances and print per-frame palettes
  dump  <model>    Write the hierarchy and the first palette as YAML

Options (every command):
  -config <file>   Config file (default ./skinplay.yaml, then user config dir)
  -model <file>    Model file, instead of the positional argument
  -clip <name>     Clip to load (default: first clip)
  -frames <n>      Frames to play
  -instances <n>   Concurrent animator instances
  -format <fmt>    Output format: text or yaml
  -debug           Enable debug logging

Examples:
  skinplay info fox.glb
  skinplay bones -clip Run fox.glb
  skinplay play -frames 120 -instances 8 fox.glb
  skinplay dump -format yaml fox.glb > fox.yaml`)
}
