// Command dev profiles a paginated article crawl against cmd/mockserver.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/ShroXd/cascade"
	"github.com/ShroXd/cascade/pkg/steps"
)

func main() {
	baseURL := flag.String("base", "http://localhost:6657", "mock server address")
	outDir := flag.String("out", "out", "profile directory")
	flag.Parse()

	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	cpu, err := createFileWithDir(filepath.Join(*outDir, "cpu.pprof"))
	if err != nil {
		log.Fatal(err)
	}
	if err := pprof.StartCPUProfile(cpu); err != nil {
		log.Fatal(err)
	}

	workErr := work(*baseURL)

	pprof.StopCPUProfile()
	cpu.Close()

	for _, name := range []string{"heap", "block", "goroutine", "threadcreate", "mutex"} {
		if err := writeProfile(name, *outDir); err != nil {
			log.Println(err)
		}
	}

	if workErr != nil {
		log.Fatal(workErr)
	}
}

func work(baseURL string) error {
	logger, err := cascade.NewLogger(cascade.WithLoggerName("dev"), cascade.WithConsoleLevel(cascade.DebugLevel))
	if err != nil {
		return err
	}
	loader, err := cascade.NewHTTPLoader(cascade.WithBaseURL(baseURL), cascade.WithLoaderLogger(logger))
	if err != nil {
		return err
	}

	pages, err := steps.Paginate("a.next", nil)
	if err != nil {
		return err
	}
	links, err := steps.Links("a.article-link", cascade.UniqueOutputs())
	if err != nil {
		return err
	}
	article, err := steps.HTTP()
	if err != nil {
		return err
	}
	extract, err := steps.Extract(map[string]string{"title": "h1", "body": "p.body"}, cascade.AddAllToResult())
	if err != nil {
		return err
	}

	c, err := cascade.New(
		cascade.Name("dev"),
		cascade.UseLogger(logger),
		cascade.UseLoader(loader),
		cascade.MonitorMemoryUsage(64<<20),
	)
	if err != nil {
		return err
	}
	for _, step := range []cascade.Step{pages, links, article, extract} {
		if err := c.AddStep(step); err != nil {
			return err
		}
	}
	c.Input(baseURL + "/articles?page=1")

	for result, err := range c.Run(context.Background()) {
		if err != nil {
			return err
		}
		fmt.Println("Article title: ", result.Get("title", ""))
	}
	return nil
}

func writeProfile(name, outDir string) error {
	f, err := createFileWithDir(filepath.Join(outDir, name+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()

	if name == "heap" {
		return pprof.WriteHeapProfile(f)
	}
	return pprof.Lookup(name).WriteTo(f, 0)
}

func createFileWithDir(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return nil, err
	}

	return os.Create(filePath)
}
