package main

import (
	"bytes"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseOps(t *testing.T) {
	ops, err := parseOps([]string{"alloc:100", "free:16", "alloc:0"})
	require.NoError(t, err)
	require.Equal(t, []op{
		{kind: opAlloc, value: 100, text: "alloc:100"},
		{kind: opFree, value: 16, text: "free:16"},
		{kind: opAlloc, value: 0, text: "alloc:0"},
	}, ops)

	for _, bad := range []string{"alloc", "alloc:x", "grow:10", ":5"} {
		_, err := parseOps([]string{bad})
		require.Error(t, err, bad)
	}
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "allocate and reuse",
			args: []string{"run", "alloc:100", "alloc:100", "free:16", "alloc:40"},
			wantContain: []string{
				"alloc:100: offset 16, hops 0",
				"alloc:100: offset 136, hops 0",
				"free:16: ok",
				"alloc:40: offset 16, hops 0",
			},
		},
		{
			name:        "double free",
			args:        []string{"run", "alloc:100", "free:16", "free:16"},
			wantErr:     true,
			wantContain: []string{"free:16: ok", "segment is already free"},
		},
		{
			name:        "invalid offset",
			args:        []string{"run", "alloc:100", "free:24"},
			wantErr:     true,
			wantContain: []string{"does not refer to a live allocation"},
		},
		{
			name:        "out of memory",
			args:        []string{"run", "--region-size", "4096", "alloc:100000000"},
			wantErr:     true,
			wantContain: []string{"no free segment large enough"},
		},
		{
			name:    "bad operation",
			args:    []string{"run", "grow:10"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _, err := runCommand(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			for _, want := range tt.wantContain {
				require.Contains(t, output, want)
			}
		})
	}
}

func TestRunCommandMap(t *testing.T) {
	output, stderr, err := runCommand(t, "run", "alloc:100", "alloc:8", "free:16", "--map")
	require.NoError(t, err)
	require.Contains(t, stderr, "[UNRELEASED MEMORY]")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	summary := readStatsSummary(t, []byte(lines[len(lines)-1]))

	require.Equal(t, 1, summary.allocationCount)
	require.Equal(t, 2, summary.freeSegmentCount)
	require.Equal(t, []segmentSummary{
		{offset: 0, size: 120, kind: "FREE"},
		{offset: 120, size: 24, kind: "USED"},
	}, summary.segments[:2])
	require.Len(t, summary.segments, 3)
	require.Equal(t, "FREE", summary.segments[2].kind)
}

type segmentSummary struct {
	offset int
	size   int
	kind   string
}

type statsSummary struct {
	allocationCount  int
	freeSegmentCount int
	segments         []segmentSummary
}

func readStatsSummary(t *testing.T, data []byte) statsSummary {
	t.Helper()

	var summary statsSummary
	r := jreader.NewReader(data)
	for rootObj := r.Object(); rootObj.Next(); {
		switch string(rootObj.Name()) {
		case "Total":
			for totalObj := r.Object(); totalObj.Next(); {
				switch string(totalObj.Name()) {
				case "AllocationCount":
					summary.allocationCount = r.Int()
				case "FreeSegmentCount":
					summary.freeSegmentCount = r.Int()
				default:
					require.NoError(t, r.SkipValue())
				}
			}
		case "Arena":
			for arenaObj := r.Object(); arenaObj.Next(); {
				if string(arenaObj.Name()) != "Segments" {
					require.NoError(t, r.SkipValue())
					continue
				}

				for segmentsArr := r.Array(); segmentsArr.Next(); {
					var segment segmentSummary
					for segmentObj := r.Object(); segmentObj.Next(); {
						switch string(segmentObj.Name()) {
						case "Offset":
							segment.offset = r.Int()
						case "Size":
							segment.size = r.Int()
						case "Type":
							segment.kind = r.String()
						default:
							require.NoError(t, r.SkipValue())
						}
					}
					summary.segments = append(summary.segments, segment)
				}
			}
		default:
			require.NoError(t, r.SkipValue())
		}
	}
	require.NoError(t, r.Error())

	return summary
}
