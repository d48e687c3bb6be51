// Package audio plays the error sound when an error message is shown.
// It uses the beep library to decode WAV, OGG and MP3 files.
package audio
