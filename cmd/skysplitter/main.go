package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/config"
	"github.com/cgillinger/skysplitter/internal/database"
	"github.com/cgillinger/skysplitter/internal/metadata"
	"github.com/cgillinger/skysplitter/internal/poster"
	"github.com/cgillinger/skysplitter/internal/server"
	"github.com/cgillinger/skysplitter/internal/splitter"
)

func main() {
	linkFlag := flag.String("link", "", "URL to attach to the thread")
	dryRun := flag.Bool("dry-run", false, "print the segments without posting")
	serve := flag.Bool("serve", false, "start the local HTTP API instead of posting")
	flag.Parse()

	logger := slog.New(NewColorHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := initializeServices(); err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	client := bluesky.New(config.ServiceURL)
	resolver := metadata.NewResolver(client)
	threadPoster := &poster.Poster{
		Client:   client,
		Resolver: resolver,
		Progress: func(posted, total int) {
			fmt.Printf("Posted %d of %d\n", posted, total)
		},
	}

	if *serve {
		if err := loginOrResume(client); err != nil {
			log.Fatalf("\033[31mLogin failed:\033[0m %v\n", err)
		}
		if err := server.New(client, threadPoster).Listen(config.ListenPort); err != nil {
			log.Fatal(err)
		}
		return
	}

	text, err := readText(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	segments, err := buildSegments(text, *linkFlag)
	if err != nil {
		log.Fatal(err)
	}
	if len(segments) == 0 {
		fmt.Println("Nothing to post.")
		return
	}

	printPreview(segments)

	if *dryRun {
		return
	}

	if err := loginOrResume(client); err != nil {
		log.Fatalf("\033[31mLogin failed:\033[0m %v\n", err)
	}

	result, err := threadPoster.PostThread(segments)
	for _, warning := range result.Warnings {
		fmt.Println("\033[0;33m" + warning + "\033[0m")
	}
	if err != nil {
		log.Fatalf("\033[31mThread failed after %d of %d posts:\033[0m %v\n",
			result.Posted, result.Total, err)
	}

	fmt.Printf("\033[0;32mAll %d posts created successfully!\033[0m\n", result.Total)
}

// readText loads the thread text from a file argument, or stdin when no
// argument is given.
func readText(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\n"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// buildSegments splits the text, staging at most one link for the thread.
// An explicit -link flag is appended to the final segment by the splitter;
// a URL already present in the text stays where it is and is only marked
// for preview resolution on the segment that carries it.
func buildSegments(text, linkFlag string) ([]splitter.Segment, error) {
	if linkFlag != "" {
		link, err := normalizeOrError(linkFlag)
		if err != nil {
			return nil, err
		}
		return splitter.Split(text, link), nil
	}

	segments := splitter.Split(text, "")
	if detected := splitter.DetectLinks(text); len(detected) > 0 {
		if normalized := splitter.NormalizeLink(detected[0]); normalized != "" {
			for i := range segments {
				if strings.Contains(segments[i].Text, detected[0]) {
					segments[i].Link = normalized
					break
				}
			}
		}
	}

	return segments, nil
}

func normalizeOrError(raw string) (string, error) {
	normalized := splitter.NormalizeLink(raw)
	if normalized == "" {
		return "", fmt.Errorf("%q is not a valid http(s) URL", raw)
	}
	return normalized, nil
}

func printPreview(segments []splitter.Segment) {
	for _, segment := range segments {
		fmt.Printf("\033[0;36mPost %d of %d\033[0m (%d characters)\n%s\n\n",
			segment.Index, segment.Total, utf8.RuneCountInString(segment.Text), segment.Text)
	}
}
