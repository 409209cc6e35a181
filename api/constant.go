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

package api

// NATS Stream Names
const (
	RunEventsStream     = "RUN_EVENTS"
	StepTasksStream     = "STEP_TASKS"
	WorkflowTasksStream = "WORKFLOW_TASKS"
)

// NATS Subject Prefix
const (
	RunEventSubjectPrefix = "events"
	StepTaskSubjectPrefix = "tasks"
)

// NATS Subject Format
const (
	RunEventPublishSubjectPattern = RunEventSubjectPrefix + ".%s" // runID
	StepTaskPublishSubjectPattern = StepTaskSubjectPrefix + ".%s" // queue name
	WorkflowWakeSubjectPattern    = "workflow.%s.wake"            // runID
)

// NATS Subject Patterns
const (
	RunEventFilterSubjectPattern = RunEventSubjectPrefix + ".>"
	StepTaskFilterSubjectPattern = StepTaskSubjectPrefix + ".>"
	WorkflowWakeFilterPattern    = "workflow.*.wake"

	SuspendRequestSubject = "suspend.request"
)

// Consumer Names
const (
	SuspendProcessorsConsumer = "suspend-processors"
	StepTaskWorkerConsumer    = "worker-step-tasks"
)

// KeyValue Bucket Names
const (
	RunStatusBucket  = "run-status"
	HookClaimsBucket = "hook-claims"
)

// Run status values stored in RunStatusBucket.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StepQueuePrefix is the naming convention for per-step execution queues.
const StepQueuePrefix = "__wkf_step_"

// StepQueueName derives the execution queue name for a step.
func StepQueueName(stepName string) string {
	return StepQueuePrefix + stepName
}
