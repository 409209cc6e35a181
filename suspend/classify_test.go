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

import (
	"testing"
	"time"

	"github.com/lcneves/wake/api"
)

func TestClassifyPartitionsAndPreservesOrder(t *testing.T) {
	now := time.Now()
	items := []api.QueueItem{
		stepItem("s1", "a", false),
		hookItem("h1", "t1"),
		waitItem("w1", now, false),
		stepItem("s2", "b", false),
		hookItem("h2", "t2"),
		stepItem("s3", "c", false),
	}

	p := classify(items)

	if got := len(p.steps) + len(p.hooks) + len(p.waits); got != len(items) {
		t.Fatalf("partition sizes sum to %d, want %d", got, len(items))
	}

	wantSteps := []string{"s1", "s2", "s3"}
	for i, s := range p.steps {
		if s.CorrelationID != wantSteps[i] {
			t.Errorf("steps[%d] = %s, want %s", i, s.CorrelationID, wantSteps[i])
		}
	}
	wantHooks := []string{"h1", "h2"}
	for i, h := range p.hooks {
		if h.CorrelationID != wantHooks[i] {
			t.Errorf("hooks[%d] = %s, want %s", i, h.CorrelationID, wantHooks[i])
		}
	}
	if len(p.waits) != 1 || p.waits[0].CorrelationID != "w1" {
		t.Errorf("waits = %v, want single w1", p.waits)
	}
}

func TestClassifyEmpty(t *testing.T) {
	p := classify(nil)
	if p.steps != nil || p.hooks != nil || p.waits != nil {
		t.Errorf("classify(nil) = %+v, want empty partitions", p)
	}
}
