// Command cascade runs crawls described in YAML files.
//
// Usage:
//
//	cascade run crawl.yaml
//	cascade run --store sqlite --output out crawl.yaml
package main

func main() {
	Execute()
}
