/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core provides the core gear for a buffer-mediated
// production system.
//
// A Model has named Buffers, each holding at most one Chunk, and
// memory stores seeded with Chunks.  A Production is a rule: patterns
// that the buffers must match and the actions to take when they do.
// Patterns use "?"-prefixed variables (see package match), and the
// variables bound by a production's conditions are available to its
// actions.
//
// A Scheduler runs a Model one tick at a time.  Each tick matches
// every production, fires the first one (in declaration order) that
// matches, and resolves the memory requests that the firing issued.
// Those results are visible at the next tick.  When nothing matches,
// the Scheduler halts.  That's the normal way for a run to end.
//
// Actions don't do any IO themselves.  Observable output goes to a
// Sink, and the Scheduler also records it in each Stride.
//
// To use this package, make a Model (probably with LoadModel). Then
// Compile() it.  You might also want to Analyze() it (see package
// tools).  Then make a Scheduler and Walk().
package core
