// Package text prepares lyric input: normalisation of raw input and of
// single-note lyrics, and splitting a lyric line into per-note lyrics.
package text
