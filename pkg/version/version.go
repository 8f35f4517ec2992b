/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package version reports the zkconfig build version.
package version

import (
	"runtime/debug"
	"strings"
)

const (
	unset       = "dev"
	develModule = "(devel)"
	revisionLen = 12
)

// Set with -ldflags "-X github.com/carverauto/zkconfig/pkg/version.version=...".
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = unset
	buildID = unset
)

// GetVersion returns the ldflags version, else the module version recorded by the Go
// toolchain.
func GetVersion() string {
	if version != unset {
		return version
	}

	v, _ := fromBuildInfo(debug.ReadBuildInfo())

	return v
}

// GetBuildID returns the ldflags build id, else the VCS revision.
func GetBuildID() string {
	if buildID != unset {
		return buildID
	}

	_, rev := fromBuildInfo(debug.ReadBuildInfo())

	return rev
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return GetVersion() + " (build: " + GetBuildID() + ")"
}

func fromBuildInfo(info *debug.BuildInfo, ok bool) (ver, rev string) {
	ver, rev = unset, unset

	if !ok || info == nil {
		return ver, rev
	}

	if v := strings.TrimSpace(info.Main.Version); v != "" && v != develModule {
		ver = v
	}

	var modified bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if setting.Value != "" {
				rev = setting.Value
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if len(rev) > revisionLen {
		rev = rev[:revisionLen]
	}

	if modified && rev != unset {
		rev += "+dirty"
	}

	return ver, rev
}
