/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"image"
	"strings"
	"testing"

	"avatarcrop/internal/render"
)

func TestWroteSummaryFormatsDimensions(t *testing.T) {
	res := render.Result{MIME: "image/png", Ext: ".png", Size: image.Pt(512, 512)}
	got := wroteSummary("/tmp/avatar.png", res, 40960)
	want := "Wrote /tmp/avatar.png (512x512, image/png, 40960 bytes)"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
	// A Point printed through %d renders as {512 512}; make sure the struct
	// formatting never leaks into the message.
	if strings.Contains(got, "{") {
		t.Fatalf("summary leaks struct formatting: %q", got)
	}
}
