package main

import (
	"fmt"
	"io"
	"time"

	"rlink/internal/buildpipeline"
)

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	stages := []struct {
		stage buildpipeline.Stage
		label string
	}{
		{buildpipeline.StageCheck, "checked"},
		{buildpipeline.StageArchive, "archived"},
		{buildpipeline.StageLink, "linked"},
		{buildpipeline.StageCleanup, "cleaned"},
	}
	for _, s := range stages {
		if !timings.Has(s.stage) {
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", s.label, toMillis(timings.Duration(s.stage)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
