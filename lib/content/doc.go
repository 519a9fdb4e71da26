// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package content embeds the canonical mirrorbot unit templates. These
// are the same four templates shipped alongside the bot in its deploy
// directory; embedding them gives mirrorctl a baseline to check
// installed units against and lets it deploy without a checkout.
package content
