package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/go-german-cv/internal/config"
	"github.com/example/go-german-cv/internal/notes"
	"github.com/example/go-german-cv/internal/phonemizer"
	textpkg "github.com/example/go-german-cv/internal/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPhonemizeCmd() *cobra.Command {
	var (
		lyric     string
		text      string
		notesPath string
		prevVowel string
		format    string
		explain   bool
	)

	cmd := &cobra.Command{
		Use:   "phonemize",
		Short: "Convert lyrics to timed CV phonemes",
		Long: "Convert lyrics to timed CV phonemes.\n\n" +
			"Input is a single --lyric, a --text line split into one note per word or\n" +
			"hyphenated syllable, a --notes file, or a text line piped on stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if !validFormat(format) {
				return fmt.Errorf("--format must be one of text|json|yaml")
			}

			nf, err := buildNoteFile(cfg, lyricInput{
				Lyric:     lyric,
				Text:      text,
				NotesPath: notesPath,
				PrevVowel: prevVowel,

				LegatoOverridden: config.Overridden(cmd.Flags(), "phonemizer.legato"),
			}, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ph := phonemizer.New()
			out := cmd.OutOrStdout()

			if explain {
				return writeAnalyses(out, format, analyzeAll(ph, nf))
			}

			results, err := ph.ProcessBatch(cmd.Context(), nf.Notes, phonemizer.BatchOptions{
				Legato:      nf.Legato,
				Concurrency: cfg.Phonemizer.Concurrency,
			})
			if err != nil {
				return err
			}
			return writeResults(out, format, nf.Notes, results)
		},
	}

	cmd.Flags().StringVar(&lyric, "lyric", "", "Lyric of a single note")
	cmd.Flags().StringVar(&text, "text", "", "Lyric line, one note per word or hyphenated syllable")
	cmd.Flags().StringVar(&notesPath, "notes", "", "Note file (yaml|json)")
	cmd.Flags().StringVar(&prevVowel, "prev-vowel", "", "Vowel sung on the note before the first one")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json|yaml")
	cmd.Flags().BoolVar(&explain, "explain", false, "Include tokens, syllables and roles")
	cmd.MarkFlagsMutuallyExclusive("lyric", "text", "notes")

	return cmd
}

func validFormat(f string) bool {
	return f == "text" || f == "json" || f == "yaml"
}

type lyricInput struct {
	Lyric     string
	Text      string
	NotesPath string
	PrevVowel string

	// LegatoOverridden is set when --legato or its env var was given. The
	// configured value then replaces the note file's own setting.
	LegatoOverridden bool
}

// buildNoteFile turns the command input into notes. Durations and legato
// fall back to the config when the input does not set them.
func buildNoteFile(cfg config.Config, in lyricInput, stdin io.Reader) (*notes.File, error) {
	var nf *notes.File

	switch {
	case in.NotesPath != "":
		loaded, err := notes.Load(in.NotesPath)
		if err != nil {
			return nil, err
		}
		nf = loaded
		if in.LegatoOverridden {
			nf.Legato = cfg.Phonemizer.Legato
		} else {
			nf.Legato = nf.Legato || cfg.Phonemizer.Legato
		}
		for i := range nf.Notes {
			if nf.Notes[i].Duration == 0 && nf.Duration == 0 {
				nf.Notes[i].Duration = cfg.Phonemizer.DefaultDuration
			}
		}
	case in.Lyric != "":
		nf = notes.FromLyrics([]string{in.Lyric}, cfg.Phonemizer.DefaultDuration, cfg.Phonemizer.Legato)
	default:
		line, err := readLyricText(in.Text, stdin)
		if err != nil {
			return nil, err
		}
		lyrics := textpkg.SplitLyrics(line)
		if len(lyrics) == 0 {
			return nil, notes.ErrNoNotes
		}
		nf = notes.FromLyrics(lyrics, cfg.Phonemizer.DefaultDuration, cfg.Phonemizer.Legato)
	}

	if in.PrevVowel != "" && nf.Notes[0].PrevVowel == "" {
		nf.Notes[0].PrevVowel = in.PrevVowel
	}
	return nf, nil
}

// readLyricText returns the --text value, or stdin when it is blank.
func readLyricText(text string, stdin io.Reader) (string, error) {
	if line, err := textpkg.Normalize(text); err == nil {
		return line, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	line, err := textpkg.Normalize(string(b))
	if err != nil {
		return "", fmt.Errorf("either provide --lyric, --text or --notes, or pipe lyrics on stdin: %w", err)
	}
	return line, nil
}

func analyzeAll(ph *phonemizer.Phonemizer, nf *notes.File) []phonemizer.Analysis {
	linked := nf.Notes
	if nf.Legato {
		linked = ph.Link(nf.Notes)
	}
	out := make([]phonemizer.Analysis, len(linked))
	for i, n := range linked {
		out[i] = ph.Analyze(n)
	}
	return out
}

// noteResult pairs a host note with its timeline for output.
type noteResult struct {
	Lyric    string `json:"lyric" yaml:"lyric"`
	Duration int    `json:"duration" yaml:"duration"`

	phonemizer.Result `yaml:",inline"`
}

func writeResults(w io.Writer, format string, ns []phonemizer.Note, results []phonemizer.Result) error {
	rows := make([]noteResult, len(results))
	for i, r := range results {
		rows[i] = noteResult{Lyric: ns[i].Lyric, Duration: ns[i].Duration, Result: r}
	}

	switch format {
	case "json":
		return writeJSON(w, rows)
	case "yaml":
		return writeYAML(w, rows)
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", r.Lyric, formatTimeline(r.Result)); err != nil {
			return err
		}
	}
	return nil
}

func writeAnalyses(w io.Writer, format string, as []phonemizer.Analysis) error {
	switch format {
	case "json":
		return writeJSON(w, as)
	case "yaml":
		return writeYAML(w, as)
	}

	var sb strings.Builder
	for i, a := range as {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s\t%s\n", a.Lyric, formatTimeline(a.Result))
		fmt.Fprintf(&sb, "  tokens:  %s\n", strings.Join(a.Tokens, " "))
		for _, s := range a.Syllables {
			fmt.Fprintf(&sb, "  %-13s prev=%-2s onset=%-8s nucleus=%-2s -> %s\n",
				s.Role, s.PrevV, strings.Join(s.Onset, "+"), s.Nucleus, strings.Join(s.Output, " "))
		}
		if len(a.Ending) > 0 {
			fmt.Fprintf(&sb, "  ending:  %s\n", strings.Join(a.Ending, " "))
		}
		if a.Passthrough {
			sb.WriteString("  passthrough\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// formatTimeline renders a result as "sym@pos sym@pos".
func formatTimeline(r phonemizer.Result) string {
	parts := make([]string, len(r.Phonemes))
	for i, p := range r.Phonemes {
		parts[i] = fmt.Sprintf("%s@%d", p.Phoneme, p.Position)
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
