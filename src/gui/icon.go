package gui

import "fyne.io/fyne/v2"

// iconSVG is a dashed selection frame with a translation arrow.
const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="1.5" width="9" height="7" fill="none" stroke="#0078d4" stroke-width="1.5" stroke-dasharray="2,1" opacity="0.8"/>
  <text x="3" y="7" font-family="sans-serif" font-size="5" fill="#333333">A</text>
  <path d="M9 11.5 h4 m-1.5 -1.5 l1.5 1.5 l-1.5 1.5" fill="none" stroke="#333333" stroke-width="1" stroke-linecap="round"/>
  <text x="10" y="9" font-family="sans-serif" font-size="5" fill="#0078d4">文</text>
</svg>`

var appIcon = fyne.NewStaticResource("screen-ocr-translate.svg", []byte(iconSVG))
