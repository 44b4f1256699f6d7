// Package cli provides the chainload command-line interface.
//
// # Overview
//
// This package implements the `chainload` tool for host developers and plugin
// authors to inspect plugin directories, preview the load order and run the full
// discovery, resolution, ordering and load pipeline from the terminal.
//
// # Commands
//
// run: Discover, order and load plugins
//
//	chainload run \
//		--plugin-dir ./plugins \
//		--process game.exe \
//		--strict     # Exit non-zero when a plugin fails
//		--serve      # Keep the status API up until interrupted
//
// plan: Show the load order without loading anything
//
//	chainload plan --plugin-dir ./plugins --json
//
// inspect: Print the metadata declared by plugin modules
//
//	chainload inspect ./plugins/greeter
//
// graph: Print the dependency graph
//
//	chainload graph --format dot | dot -Tsvg > plugins.svg
//
// watch: Re-plan whenever a plugin directory changes
//
//	chainload watch --plugin-dir ./plugins --delay 1s
//
// # Configuration
//
// Every command accepts --config (or CHAINLOAD_CONFIG) pointing at a TOML file,
// followed by CHAINLOAD_* environment overrides and finally the command flags.
// See the config package for the keys.
//
// # Output
//
// Results go to stdout, logs go to stderr. With --json the plan and run commands
// print one JSON document:
//
//	{
//	  "run_id": "4b3c...",
//	  "process_name": "game.exe",
//	  "load_order": [
//	    {"position": 1, "guid": "com.example.core", "outcome": "loaded", ...}
//	  ],
//	  "loaded": 1,
//	  "diagnostics": []
//	}
package cli
