/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version holds the application version string. Commit and date are
// intended to be overridden at link time via -ldflags.
package version

// Version is the semantic application version.
var Version = "0.3.0"

// Commit and Date can be injected at build time.
var (
	Commit = ""
	Date   = ""
)

// String returns the full human-readable version.
func String() string {
	s := Version
	if Commit != "" {
		s += "+" + Commit
	}
	if Date != "" {
		s += " (" + Date + ")"
	}
	return s
}
