// Package audio acquires microphone input and turns it into per-bin magnitudes.
//
// A Provider opens a Stream; the default provider runs a capture child process
// (arecord on Linux, ffmpeg elsewhere) that writes signed 16-bit mono PCM to
// stdout. Samples feed an Analyzer which reports byte frequency data: a
// Blackman-windowed FFT, smoothed over time and mapped from a decibel range
// onto 0..255.
package audio
