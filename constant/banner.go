package constant

// Banner is printed above the root command help.
const Banner = `
        _     _
 __   _(_) __| |___  __ _ _ __
 \ \ / / |/ _` + "`" + ` / __|/ _` + "`" + ` | '_ \
  \ V /| | (_| \__ \ (_| | | | |
   \_/ |_|\__,_|___/\__,_|_| |_|
`
