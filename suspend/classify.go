// Copyright 2026 Luis Neves
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package suspend

import "github.com/lcneves/wake/api"

// partition holds a suspension's pending operations split by kind,
// preserving the relative order within each kind.
type partition struct {
	steps []*api.StepItem
	hooks []*api.HookItem
	waits []*api.WaitItem
}

// classify splits the ordered item list into the three disjoint
// categories. The union is closed, so the switch is exhaustive.
func classify(items []api.QueueItem) partition {
	var p partition
	for _, item := range items {
		switch it := item.(type) {
		case *api.StepItem:
			p.steps = append(p.steps, it)
		case *api.HookItem:
			p.hooks = append(p.hooks, it)
		case *api.WaitItem:
			p.waits = append(p.waits, it)
		}
	}
	return p
}
