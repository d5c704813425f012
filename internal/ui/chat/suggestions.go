// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// CommonQuestions are offered on an empty conversation.
var CommonQuestions = []string{
	"What are some things to do in Lamoni?",
	"Tell me the Enactus Room stats",
	"Where do I eat on campus?",
	"What do I need for the Data Science?",
}
