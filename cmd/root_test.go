package cmd

import "testing"

func TestCleanDraggedPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"/home/user/project\n", "/home/user/project"},
		{"'/home/user/my project'\n", "/home/user/my project"},
		{`"/home/user/project"` + "\n", "/home/user/project"},
		{"file:///home/user/project\n", "/home/user/project"},
		{"file:/home/user/project\n", "/home/user/project"},
		{"/home/user/my%20project\n", "/home/user/my project"},
		{"  /home/user/project  \n", "/home/user/project"},
	}
	for _, c := range cases {
		if got := CleanDraggedPath(c.raw); got != c.want {
			t.Errorf("CleanDraggedPath(%q) = %q; want %q", c.raw, got, c.want)
		}
	}
}
