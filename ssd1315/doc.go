// Package ssd1315 controls a monochrome OLED display via an SSD1315
// controller on I²C.
//
// It is developed for the Waveshare 0.49" OLED module (64x32 pixels) and
// works with other SSD1315 based panels by adjusting the width and height.
// The SSD1315 shares its command set with the ubiquitous SSD1306.
//
// The driver keeps a framebuffer in the controller's native page packing:
// horizontal bands of 8 pixels high, one byte per column. Pixel mutations
// (SetPixel, Fill, LoadImage, Canvas commits) are in-memory only; Display
// pushes the full frame to the panel, page by page.
//
// For whole-frame graphics use the Canvas: it hands out a gg drawing context
// and commits the result to the device atomically, exactly once.
//
// # Datasheet
//
// https://www.waveshare.com/w/upload/9/96/SSD1315.pdf
package ssd1315
