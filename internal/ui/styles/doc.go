// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for inkwell's terminal
output.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. A Theme bundles the styles used by the live view and the CLI;
NewThemeFor pins the background when the ui.theme setting is not "auto".

# Usage

	theme := styles.NewThemeFor(cfg.UI.Theme)
	fmt.Println(theme.HeaderTitle.Render("notes.html"))
	fmt.Println(styles.RenderStatus("completed"))
*/
package styles
