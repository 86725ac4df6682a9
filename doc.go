// Package oled is a container for the Waveshare 0.49" OLED module driver.
//
// The driver itself lives in the ssd1315 package. The termview package is an
// ANSI terminal emulator for the display, useful for development without the
// hardware attached.
package oled
