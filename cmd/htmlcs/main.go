// Package main provides the entry point for the htmlcs CLI.
//
// htmlcs runs the HTML_CodeSniffer accessibility sniffer on HTML files in a
// headless browser and prints the messages it reports.
//
// Usage:
//
//	htmlcs scan site/**.html
//	htmlcs last
//	htmlcs compare site/index.html
//
// See --help for all available options.
package main

func main() {
	Execute()
}
